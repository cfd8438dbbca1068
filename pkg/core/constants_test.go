package core_test

import (
	"testing"

	core "graylogoperator/pkg/core"
)

// Environment names are consumed by the Graylog image and must never drift.
func TestEnvironmentNamesStability(t *testing.T) {
	want := map[string]string{
		core.EnvIsMaster:               "GRAYLOG_IS_MASTER",
		core.EnvPasswordSecret:         "GRAYLOG_PASSWORD_SECRET",
		core.EnvRootPasswordSHA2:       "GRAYLOG_ROOT_PASSWORD_SHA2",
		core.EnvHTTPBindAddress:        "GRAYLOG_HTTP_BIND_ADDRESS",
		core.EnvHTTPPublishURI:         "GRAYLOG_HTTP_PUBLISH_URI",
		core.EnvHTTPExternalURI:        "GRAYLOG_HTTP_EXTERNAL_URI",
		core.EnvElasticsearchHosts:     "GRAYLOG_ELASTICSEARCH_HOSTS",
		core.EnvElasticsearchDiscovery: "GRAYLOG_ELASTICSEARCH_DISCOVERY_ENABLED",
		core.EnvMongoDBURI:             "GRAYLOG_MONGODB_URI",
	}
	for got, expected := range want {
		if got != expected {
			t.Fatalf("environment name changed: %s != %s", got, expected)
		}
	}
}

func TestFinalizerStability(t *testing.T) {
	if core.Finalizer != "graylog.charm.example.com/finalizer" {
		t.Fatalf("Finalizer changed: %s", core.Finalizer)
	}
}
