package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abedinzadeh/dashmon.online/internal/config"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// Seed file shape: tenants own groups, groups own devices. A device with
// no explicit interval gets the one for its tenant's plan tier.
type seedFile struct {
	Tenants []seedTenant `yaml:"tenants"`
}

type seedTenant struct {
	Name   string      `yaml:"name"`
	Plan   string      `yaml:"plan"`
	Groups []seedGroup `yaml:"groups"`
}

type seedGroup struct {
	Name    string       `yaml:"name"`
	Devices []seedDevice `yaml:"devices"`
}

type seedDevice struct {
	Name              string `yaml:"name"`
	Host              string `yaml:"host"`
	URL               string `yaml:"url"`
	Port              int    `yaml:"port"`
	CheckIntervalSecs int    `yaml:"check_interval_secs"`
	LatencyWarnMs     int    `yaml:"latency_warn_ms"`
}

func handleSeed(configPath, seedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path, 1)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	ctx := context.Background()

	for _, st := range sf.Tenants {
		tenant := &storage.Tenant{Name: st.Name, Plan: st.Plan}
		if err := store.CreateTenant(ctx, tenant); err != nil {
			return fmt.Errorf("create tenant %q: %w", st.Name, err)
		}
		fmt.Printf("tenant %s (%s) %s\n", tenant.Name, tenant.Plan, tenant.ID)

		for _, sg := range st.Groups {
			group := &storage.Group{TenantID: tenant.ID, Name: sg.Name}
			if err := store.CreateGroup(ctx, group); err != nil {
				return fmt.Errorf("create group %q: %w", sg.Name, err)
			}
			fmt.Printf("  group %s %s\n", group.Name, group.ID)

			for _, sd := range sg.Devices {
				interval := sd.CheckIntervalSecs
				if interval <= 0 {
					interval = cfg.Plans.IntervalFor(tenant.Plan)
				}
				dev := &storage.Device{
					TenantID:          tenant.ID,
					GroupID:           group.ID,
					Name:              sd.Name,
					Host:              sd.Host,
					URL:               sd.URL,
					Port:              sd.Port,
					CheckIntervalSecs: interval,
					LatencyWarnMs:     sd.LatencyWarnMs,
				}
				if err := store.CreateDevice(ctx, dev); err != nil {
					return fmt.Errorf("create device %q: %w", sd.Name, err)
				}
				fmt.Printf("    device %s every %ds %s\n", dev.Name, dev.CheckIntervalSecs, dev.ID)
			}
		}
	}
	return nil
}
