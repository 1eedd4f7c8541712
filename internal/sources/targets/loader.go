package targets

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads and validates a targets file
type Loader struct {
	filePath string
	mapper   *Mapper
}

// NewLoader creates a new targets loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		mapper:   NewMapper(),
	}
}

// Path returns the watched file
func (l *Loader) Path() string { return l.filePath }

// Parse reads and parses the file without validating it
func (l *Loader) Parse() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read targets file: %w", err)
	}

	data = expandEnv(data)

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse targets yaml: %w", err)
	}
	return f, nil
}

// Load parses the file and maps it to validated service targets
func (l *Loader) Load() ([]domain.ServiceTarget, error) {
	f, err := l.Parse()
	if err != nil {
		return nil, err
	}
	return l.mapper.MapTargets(f)
}

// expandEnv replaces ${VAR} references with their environment values.
// Example: health_url: http://${WEBAPP_HOST}:8000/
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
