package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/pgwire-go/pgwire/internal/client"
	"github.com/pgwire-go/pgwire/internal/config"
	"github.com/pgwire-go/pgwire/pkg/pgwire"
)

// resolvePassword takes the password from PGWIRE_PASSWORD when set,
// otherwise prompts interactively if asked to, otherwise proceeds with an
// empty password (legal for trust-authenticated servers).
func resolvePassword(user string, interactive bool) (string, error) {
	if v, ok := os.LookupEnv("PGWIRE_PASSWORD"); ok {
		return v, nil
	}
	if !interactive {
		return "", nil
	}

	var password string
	prompt := huh.NewInput().
		Title(fmt.Sprintf("Password for %s", user)).
		EchoMode(huh.EchoModePassword).
		Value(&password)

	if err := huh.NewForm(huh.NewGroup(prompt)).Run(); err != nil {
		return "", fmt.Errorf("password prompt: %w", err)
	}
	return password, nil
}

func toPgwireConfig(connCfg config.ConnectionConfig) (pgwire.ConnectionConfig, error) {
	cfg := &config.Config{Connection: connCfg}
	return cfg.ToPgwireConfig("")
}

func dialAndAuthenticate(pgCfg pgwire.ConnectionConfig, password string) (*client.Conn, error) {
	pgCfg.Password = password
	return client.Connect(pgCfg, password)
}
