package core

// Managed metadata keys and finalizer
const (
	ManagedLabel           = "graylog.charm.example.com/managed"
	InstanceLabel          = "graylog.charm.example.com/instance"
	ArtifactHashAnnotation = "graylog.charm.example.com/artifact-hash"

	Finalizer = "graylog.charm.example.com/finalizer"
)

// Condition types
const (
	CondReady       = "Ready"
	CondProgressing = "Progressing"
	CondDegraded    = "Degraded"
)

// Workload modes
const (
	WorkloadManaged  = "Managed"
	WorkloadExternal = "External"
)

// Environment variables published to the Graylog workload.
const (
	EnvIsMaster               = "GRAYLOG_IS_MASTER"
	EnvPasswordSecret         = "GRAYLOG_PASSWORD_SECRET"
	EnvRootPasswordSHA2       = "GRAYLOG_ROOT_PASSWORD_SHA2"
	EnvHTTPBindAddress        = "GRAYLOG_HTTP_BIND_ADDRESS"
	EnvHTTPPublishURI         = "GRAYLOG_HTTP_PUBLISH_URI"
	EnvHTTPExternalURI        = "GRAYLOG_HTTP_EXTERNAL_URI"
	EnvElasticsearchHosts     = "GRAYLOG_ELASTICSEARCH_HOSTS"
	EnvElasticsearchDiscovery = "GRAYLOG_ELASTICSEARCH_DISCOVERY_ENABLED"
	EnvMongoDBURI             = "GRAYLOG_MONGODB_URI"
)

// Workload policy
const (
	ContainerName            = "graylog"
	HealthCheckPath          = "/api/system/lbstatus"
	ProbeInitialDelaySeconds = 60
	ProbeTimeoutSeconds      = 5

	DefaultPort             int32 = 9000
	DefaultSecretLength           = 96
	DefaultAdminPasswordKey       = "admin-password"

	// DatastoreName is the database appended to the replica set URI.
	DatastoreName = "graylog"
)

// Relation data keys supplied by the remote side of each dependency.
const (
	FieldIngressAddress = "ingress-address"
	FieldPort           = "port"
	FieldReplicaSetURI  = "replica_set_uri"
	FieldReplicaSetName = "replica_set_name"
)

// Relation data keys published to consumers of this Graylog.
const (
	ProviderFieldPort          = "graylog_port"
	ProviderFieldPublicAddress = "public_address"
	ProviderFieldReady         = "ready"
)

// User-visible status messages.
const (
	MessageNeedAdminPassword = "need admin-password config option"
	MessageWaitingForStartup = "waiting for startup"
	MessageWaitingForIngress = "waiting for ingress address"
	MessageImageFetchFailed  = "Error fetching image information"
	MessagePodTerminating    = "Pod is terminating."
)
