package targets

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Mapper converts file specs to domain.ServiceTarget entities
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapTargets validates every spec and converts them. All problems are
// reported together.
func (m *Mapper) MapTargets(f File) ([]domain.ServiceTarget, error) {
	if len(f.Targets) == 0 {
		return nil, errors.New("no targets defined")
	}

	var (
		out  = make([]domain.ServiceTarget, 0, len(f.Targets))
		errs []error
		seen = make(map[string]bool, len(f.Targets))
	)

	for i, spec := range f.Targets {
		t, err := MapTarget(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("targets[%d]: %w", i, err))
			continue
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("targets[%d]: duplicate name %q", i, t.Name))
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// MapTarget validates and converts a single spec
func MapTarget(spec Spec) (domain.ServiceTarget, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return domain.ServiceTarget{}, errors.New("name is required")
	}
	if !validName.MatchString(name) {
		return domain.ServiceTarget{}, fmt.Errorf("invalid name %q (lowercase letters, digits, '.', '_' and '-')", name)
	}

	if err := ValidateHealthURL(spec.HealthURL); err != nil {
		return domain.ServiceTarget{}, fmt.Errorf("%s: %w", name, err)
	}

	if strings.TrimSpace(spec.InstancePrefix) == "" {
		return domain.ServiceTarget{}, fmt.Errorf("%s: instance_prefix is required", name)
	}

	var timeout time.Duration
	if spec.ProbeTimeout != "" {
		d, err := time.ParseDuration(spec.ProbeTimeout)
		if err != nil || d <= 0 {
			return domain.ServiceTarget{}, fmt.Errorf("%s: invalid probe_timeout %q", name, spec.ProbeTimeout)
		}
		timeout = d
	}

	if spec.MaxCycles < 0 {
		return domain.ServiceTarget{}, fmt.Errorf("%s: max_cycles must be >= 0", name)
	}

	return domain.ServiceTarget{
		Name:           name,
		HealthURL:      spec.HealthURL,
		InstancePrefix: spec.InstancePrefix,
		ProbeTimeout:   timeout,
		MaxCycles:      spec.MaxCycles,
	}, nil
}

// ValidateHealthURL requires an absolute http or https URL with a host
func ValidateHealthURL(raw string) error {
	if raw == "" {
		return errors.New("health_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid health_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("health_url must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("health_url has no host: %q", raw)
	}
	return nil
}
