package config_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fdtdsim/internal/config"
)

var _ = Describe("Scene files", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	DescribeTable("presets survive a save and load",
		func(name string) {
			path := filepath.Join(dir, name+".yaml")
			scene := config.GetPreset(name)
			Expect(scene).NotTo(BeNil())
			Expect(config.Save(path, scene)).To(Succeed())

			loaded, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(scene))
		},
		Entry("vacuum line", "vacuum_1550"),
		Entry("absorbed pulse", "pml_pulse"),
		Entry("straight waveguide", "waveguide"),
		Entry("ring resonator", "ring"),
	)

	Context("when the scene omits the backend and spacing", func() {
		It("fills in the defaults", func() {
			scene, err := config.Parse([]byte("grid: {shape: [8, 8, 1]}"))
			Expect(err).NotTo(HaveOccurred())
			Expect(scene.Backend).To(Equal(config.DefaultBackend))
			Expect(scene.Grid.Spacing).To(Equal(config.DefaultSpacing))
		})
	})

	Context("when a detector name repeats", func() {
		It("rejects the scene", func() {
			_, err := config.Parse([]byte(`
grid: {shape: [8, 1, 1]}
detectors:
  - {name: sensor, kind: line, from: [1, 0, 0], to: [1, 0, 0]}
  - {name: sensor, kind: line, from: [2, 0, 0], to: [2, 0, 0]}
`))
			Expect(err).To(MatchError(config.ErrInvalid))
		})
	})

	It("lists presets in sorted order", func() {
		names := config.ListPresets()
		Expect(names).To(HaveLen(len(config.Presets)))
		Expect(names).To(ContainElements("vacuum_1550", "ring"))
		Expect(names[0]).To(Equal("pml_pulse"))
	})
})
