package fdtd

import "github.com/san-kum/fdtdsim/internal/backend"

// Fields are stored in normalised units, E' = sqrt(eps0)·E and H' = sqrt(mu0)·H,
// so the leapfrog reduces to
//
//	E' += S ⊙ invEps ⊙ curl_b(H')
//	H' -= S ⊙ invMu  ⊙ curl_f(E')
//
// where S is the per-axis Courant factor c·dt/dx folded into each difference.

// CurlE accumulates the forward-difference curl of e into out.
func CurlE(be backend.Backend, e, out backend.Array, s [3]float64) {
	curl(be, e, out, s, true)
}

// CurlH accumulates the backward-difference curl of h into out.
func CurlH(be backend.Backend, h, out backend.Array, s [3]float64) {
	curl(be, h, out, s, false)
}

// curl_c = d_{c+1} F_{c+2} - d_{c+2} F_{c+1}
func curl(be backend.Backend, f, out backend.Array, s [3]float64, forward bool) {
	for c := 0; c < 3; c++ {
		a1, a2 := (c+1)%3, (c+2)%3
		be.DiffAccum(out, c, f, a2, a1, forward, s[a1])
		be.DiffAccum(out, c, f, a1, a2, forward, -s[a2])
	}
}

// UpdateE advances E by one half step. scratch is overwritten.
func UpdateE(be backend.Backend, e, h, invEps, scratch backend.Array, s [3]float64) {
	be.Fill(scratch, 0)
	CurlH(be, h, scratch, s)
	be.Mul(scratch, scratch, invEps)
	be.Add(e, e, scratch)
}

// UpdateH advances H by one half step. scratch is overwritten.
func UpdateH(be backend.Backend, e, h, invMu, scratch backend.Array, s [3]float64) {
	be.Fill(scratch, 0)
	CurlE(be, e, scratch, s)
	be.Mul(scratch, scratch, invMu)
	be.Sub(h, h, scratch)
}
