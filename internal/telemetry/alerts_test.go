/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const alertsPath = "../../deploy/prometheus/alerts.yml"

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

func loadAlerts(t *testing.T) []alertGroup {
	t.Helper()

	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
	}

	var cfg struct {
		Groups []alertGroup `yaml:"groups"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Invalid YAML in alerts.yml: %v", err)
	}
	if len(cfg.Groups) == 0 {
		t.Fatal("alerts.yml 'groups' is empty")
	}
	return cfg.Groups
}

// TestCriticalAlertsPresent verifies critical alerts are defined.
func TestCriticalAlertsPresent(t *testing.T) {
	defined := map[string]alertRule{}
	for _, g := range loadAlerts(t) {
		for _, r := range g.Rules {
			defined[r.Alert] = r
		}
	}

	for _, name := range []string{"HighAPIErrorRate", "RenderFailures", "DatabaseDown"} {
		rule, ok := defined[name]
		if !ok {
			t.Errorf("Critical alert '%s' not found in alerts.yml", name)
			continue
		}
		if rule.Labels["severity"] != "critical" {
			t.Errorf("Alert '%s' severity = %q, want critical", name, rule.Labels["severity"])
		}
	}
}

// TestAlertLabels verifies alerts have required labels.
func TestAlertLabels(t *testing.T) {
	for _, g := range loadAlerts(t) {
		for _, alert := range g.Rules {
			if alert.Alert == "" {
				continue
			}
			if _, ok := alert.Labels["severity"]; !ok {
				t.Errorf("Alert '%s' missing 'severity' label", alert.Alert)
			}
			if _, ok := alert.Annotations["summary"]; !ok {
				t.Errorf("Alert '%s' missing 'summary' annotation", alert.Alert)
			}
		}
	}
}

// TestAlertMetricsExist verifies every metric referenced by an alert is
// declared in metrics.go.
func TestAlertMetricsExist(t *testing.T) {
	data, err := os.ReadFile("metrics.go")
	if err != nil {
		t.Fatalf("Failed to read metrics.go: %v", err)
	}
	content := string(data)

	metricRef := regexp.MustCompile(`eventdesk_[a-z_]+`)
	for _, g := range loadAlerts(t) {
		for _, alert := range g.Rules {
			for _, name := range metricRef.FindAllString(alert.Expr, -1) {
				base := strings.TrimSuffix(name, "_bucket")
				if !strings.Contains(content, `"`+base+`"`) {
					t.Errorf("Alert '%s' references undeclared metric %s", alert.Alert, name)
				}
			}
		}
	}
}
