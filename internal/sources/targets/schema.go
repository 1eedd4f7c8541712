package targets

// File is the top-level structure of targets.yaml
type File struct {
	Targets []Spec `yaml:"targets"`
}

// Spec describes one service target as written by operators
type Spec struct {
	Name           string `yaml:"name"`
	HealthURL      string `yaml:"health_url"`
	InstancePrefix string `yaml:"instance_prefix"`
	ProbeTimeout   string `yaml:"probe_timeout,omitempty"` // Go duration, e.g. "5s"
	MaxCycles      int    `yaml:"max_cycles,omitempty"`
}
