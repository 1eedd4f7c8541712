// Package fake provides an in-memory platform.Platform for tests and dry runs.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/medic/internal/platform"
)

// Call records one operation received by the fake.
type Call struct {
	Op string // list, get, restart, start, logs
	ID string
}

// Platform keeps containers in a map keyed by name. Restart and Start mark
// the container running and healthy unless a failure was injected.
type Platform struct {
	mu         sync.Mutex
	containers map[string]platform.Container
	logs       map[string]string
	failures   map[string]error // "op/id" or "op/*"
	calls      []Call

	// AfterAction runs (without the lock) after every successful restart or
	// start, letting tests flip the aggregate probe.
	AfterAction func(op, id string)
}

var _ platform.Platform = (*Platform)(nil)

func New(containers ...platform.Container) *Platform {
	p := &Platform{
		containers: make(map[string]platform.Container, len(containers)),
		logs:       make(map[string]string),
		failures:   make(map[string]error),
	}
	for _, c := range containers {
		p.containers[c.Name] = c
	}
	return p
}

// Put adds or replaces a container.
func (p *Platform) Put(c platform.Container) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.containers[c.Name] = c
}

// Remove deletes a container entirely.
func (p *Platform) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.containers, name)
}

// SetLogs sets the log text returned for a container.
func (p *Platform) SetLogs(name, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs[name] = text
}

// Fail makes op on id (or every id with "*") return err.
func (p *Platform) Fail(op, id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op+"/"+id] = err
}

// Calls returns a copy of the recorded operations.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsOf returns recorded ids for one operation.
func (p *Platform) CallsOf(op string) []string {
	var ids []string
	for _, c := range p.Calls() {
		if c.Op == op {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Container returns the current state of a container.
func (p *Platform) Container(name string) (platform.Container, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.containers[name]
	return c, ok
}

func (p *Platform) record(op, id string) error {
	p.calls = append(p.calls, Call{Op: op, ID: id})
	if err, ok := p.failures[op+"/"+id]; ok {
		return err
	}
	if err, ok := p.failures[op+"/*"]; ok {
		return err
	}
	return nil
}

func (p *Platform) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record("ping", "")
}

func (p *Platform) List(ctx context.Context, prefix string) ([]platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("list", prefix); err != nil {
		return nil, err
	}
	var out []platform.Container
	for name, c := range p.containers {
		if strings.HasPrefix(name, prefix) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Platform) Get(ctx context.Context, id string) (platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("get", id); err != nil {
		return platform.Container{}, err
	}
	return p.lookup(id)
}

func (p *Platform) lookup(id string) (platform.Container, error) {
	if c, ok := p.containers[id]; ok {
		return c, nil
	}
	for _, c := range p.containers {
		if c.ID != "" && c.ID == id {
			return c, nil
		}
	}
	return platform.Container{}, platform.ErrNotFound
}

func (p *Platform) Restart(ctx context.Context, id string) error {
	if err := p.mutate("restart", id, true); err != nil {
		return err
	}
	if p.AfterAction != nil {
		p.AfterAction("restart", id)
	}
	return nil
}

func (p *Platform) Start(ctx context.Context, id string) error {
	if err := p.mutate("start", id, false); err != nil {
		return err
	}
	if p.AfterAction != nil {
		p.AfterAction("start", id)
	}
	return nil
}

func (p *Platform) mutate(op, id string, requireRunning bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(op, id); err != nil {
		return err
	}
	c, err := p.lookup(id)
	if err != nil {
		return err
	}
	if requireRunning && !c.Running() {
		return platform.ErrNotRunning
	}
	c.State = "running"
	if c.Health != "" {
		c.Health = "healthy"
	}
	c.ExitCode = 0
	c.OOMKilled = false
	p.containers[c.Name] = c
	return nil
}

func (p *Platform) Logs(ctx context.Context, id string, tail int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("logs", id); err != nil {
		return "", err
	}
	c, err := p.lookup(id)
	if err != nil {
		return "", err
	}
	text := p.logs[c.Name]
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	if text == "" {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// String is handy in test failure output.
func (p *Platform) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.containers))
	for n, c := range p.containers {
		names = append(names, fmt.Sprintf("%s=%s/%s", n, c.State, c.Health))
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
