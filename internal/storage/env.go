package storage

import (
	"os"
	"strconv"
)

// Environment variables inspected by the Detector.
const (
	// Remote key-value store: both must be present, a partial set
	// counts as absent.
	EnvKVURL   = "KV_URL"
	EnvKVToken = "KV_TOKEN"

	// Remote blob store. The KV URL is a co-requisite because blob
	// metadata lives in the key-value store.
	EnvBlobAccessKey = "BLOB_ACCESS_KEY"
	EnvBlobSecretKey = "BLOB_SECRET_KEY"
	EnvBlobEndpoint  = "BLOB_ENDPOINT"
	EnvBlobBucket    = "BLOB_BUCKET"
	EnvBlobUseSSL    = "BLOB_USE_SSL"

	// Managed-platform signals. MANAGED_PLATFORM, when set to a valid
	// boolean, is authoritative; otherwise K_SERVICE (Cloud Run)
	// implies a managed platform.
	EnvManagedPlatform = "MANAGED_PLATFORM"
	EnvCloudRunService = "K_SERVICE"
)

// Environment is one classification of the process environment.
type Environment struct {
	ManagedPlatform     bool
	RemoteKVAvailable   bool
	RemoteBlobAvailable bool
}

// Detector classifies the runtime from environment variables. The
// lookup function is consulted on every call, never cached, so
// credential changes are observed without a restart.
type Detector struct {
	lookup func(string) string
}

// NewDetector creates a detector. A nil lookup reads the process
// environment.
func NewDetector(lookup func(string) string) *Detector {
	if lookup == nil {
		lookup = os.Getenv
	}
	return &Detector{lookup: lookup}
}

// Classify inspects the environment and reports which backends are
// usable. It has no side effects.
func (d *Detector) Classify() Environment {
	kvURL := d.lookup(EnvKVURL)
	kvToken := d.lookup(EnvKVToken)

	env := Environment{
		ManagedPlatform:   d.managedPlatform(),
		RemoteKVAvailable: kvURL != "" && kvToken != "",
	}
	env.RemoteBlobAvailable = kvURL != "" &&
		d.lookup(EnvBlobAccessKey) != "" &&
		d.lookup(EnvBlobSecretKey) != ""
	return env
}

func (d *Detector) managedPlatform() bool {
	if v, err := strconv.ParseBool(d.lookup(EnvManagedPlatform)); err == nil {
		return v
	}
	return d.lookup(EnvCloudRunService) != ""
}

// kvCredentials returns the current remote key-value credentials.
func (d *Detector) kvCredentials() (url, token string) {
	return d.lookup(EnvKVURL), d.lookup(EnvKVToken)
}

type blobCredentials struct {
	endpoint  string
	accessKey string
	secretKey string
	bucket    string
	useSSL    bool
}

func (d *Detector) blobCredentials() blobCredentials {
	creds := blobCredentials{
		endpoint:  d.lookup(EnvBlobEndpoint),
		accessKey: d.lookup(EnvBlobAccessKey),
		secretKey: d.lookup(EnvBlobSecretKey),
		bucket:    d.lookup(EnvBlobBucket),
	}
	if creds.endpoint == "" {
		creds.endpoint = "localhost:9000"
	}
	if creds.bucket == "" {
		creds.bucket = "labarchive"
	}
	creds.useSSL, _ = strconv.ParseBool(d.lookup(EnvBlobUseSSL))
	return creds
}

func (c blobCredentials) cacheKey() string {
	return c.endpoint + "\x00" + c.accessKey + "\x00" + c.secretKey + "\x00" + c.bucket
}
