package main

import (
	"path/filepath"
	"testing"
)

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		name     string
		flagDSN  string
		envDSN   string
		stateDir string
		want     string
	}{
		{
			name:     "flag wins over everything",
			flagDSN:  "postgres://flag/db",
			envDSN:   "postgres://env/db",
			stateDir: "/var/lib/sugarguard",
			want:     "postgres://flag/db",
		},
		{
			name:     "env used when no flag",
			envDSN:   "postgres://env/db",
			stateDir: "/var/lib/sugarguard",
			want:     "postgres://env/db",
		},
		{
			name:     "falls back to sqlite file in state dir",
			stateDir: "/var/lib/sugarguard",
			want:     filepath.Join("/var/lib/sugarguard", dbFileName),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDSN(tt.flagDSN, tt.envDSN, tt.stateDir)
			if got != tt.want {
				t.Errorf("resolveDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
