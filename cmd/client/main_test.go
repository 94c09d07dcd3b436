package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/omochice/chat-session/internal/config"
)

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "server", "username", "driver", "metrics-addr"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s is not defined", name)
		}
	}
}

func TestBindFlags(t *testing.T) {
	tests := []struct {
		name  string
		flag  string
		key   string
		value string
		want  string
	}{
		{"flag overrides default", "server", "server.url", "ws://chat.example/ws", "ws://chat.example/ws"},
		{"unset flag keeps default", "driver", "transport.driver", "", config.DriverWS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := config.New()
			cmd := &cobra.Command{}
			cmd.Flags().String(tt.flag, "", "")
			bindFlags(v, cmd, map[string]string{tt.key: tt.flag})

			if tt.value != "" {
				if err := cmd.Flags().Set(tt.flag, tt.value); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}
			if got := v.GetString(tt.key); got != tt.want {
				t.Errorf("GetString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
