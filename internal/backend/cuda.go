package backend

// CUDABackend is the accelerator target. No device kernels are linked into
// this build, so it always reports unavailable and New refuses to return it.
// Operations fall through to the host implementation so a forced instance
// still behaves correctly.
type CUDABackend struct {
	*CPUBackend
}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{CPUBackend: NewCPUBackend()}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
