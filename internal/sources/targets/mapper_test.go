package targets

import (
	"strings"
	"testing"
)

func TestMapTarget(t *testing.T) {
	valid := Spec{Name: "webapp", HealthURL: "http://webapp:8000/", InstancePrefix: "webapp-"}

	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr string
	}{
		{name: "valid", mutate: func(*Spec) {}},
		{name: "missing name", mutate: func(s *Spec) { s.Name = " " }, wantErr: "name is required"},
		{name: "bad name", mutate: func(s *Spec) { s.Name = "Web App" }, wantErr: "invalid name"},
		{name: "reserved name", mutate: func(s *Spec) { s.Name = "_all" }, wantErr: "invalid name"},
		{name: "missing url", mutate: func(s *Spec) { s.HealthURL = "" }, wantErr: "health_url is required"},
		{name: "relative url", mutate: func(s *Spec) { s.HealthURL = "/healthz" }, wantErr: "http or https"},
		{name: "ftp url", mutate: func(s *Spec) { s.HealthURL = "ftp://webapp/" }, wantErr: "http or https"},
		{name: "no host", mutate: func(s *Spec) { s.HealthURL = "http:///x" }, wantErr: "no host"},
		{name: "missing prefix", mutate: func(s *Spec) { s.InstancePrefix = "" }, wantErr: "instance_prefix is required"},
		{name: "bad timeout", mutate: func(s *Spec) { s.ProbeTimeout = "soon" }, wantErr: "invalid probe_timeout"},
		{name: "negative timeout", mutate: func(s *Spec) { s.ProbeTimeout = "-1s" }, wantErr: "invalid probe_timeout"},
		{name: "negative cycles", mutate: func(s *Spec) { s.MaxCycles = -1 }, wantErr: "max_cycles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)

			_, err := MapTarget(spec)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("MapTarget() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("MapTarget() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMapTargetsDuplicates(t *testing.T) {
	f := File{Targets: []Spec{
		{Name: "webapp", HealthURL: "http://a/", InstancePrefix: "a-"},
		{Name: "webapp", HealthURL: "http://b/", InstancePrefix: "b-"},
	}}

	_, err := NewMapper().MapTargets(f)
	if err == nil || !strings.Contains(err.Error(), `duplicate name "webapp"`) {
		t.Errorf("MapTargets() error = %v, want duplicate name", err)
	}
}

func TestMapTargetsEmpty(t *testing.T) {
	if _, err := NewMapper().MapTargets(File{}); err == nil {
		t.Error("MapTargets() with no targets should return error")
	}
}

func TestMapTargetsReportsAllErrors(t *testing.T) {
	f := File{Targets: []Spec{
		{Name: "", HealthURL: "http://a/", InstancePrefix: "a-"},
		{Name: "ok", HealthURL: "http://b/", InstancePrefix: "b-"},
		{Name: "bad", HealthURL: "nope", InstancePrefix: "c-"},
	}}

	_, err := NewMapper().MapTargets(f)
	if err == nil {
		t.Fatal("MapTargets() should fail")
	}
	if !strings.Contains(err.Error(), "targets[0]") || !strings.Contains(err.Error(), "targets[2]") {
		t.Errorf("MapTargets() error = %v, want both failures", err)
	}
}
