package version

import (
	goversion "github.com/hashicorp/go-version"
)

// will be replaced with the release version when using goreleaser
var version = "development"

// TrustchainVersion returns the trustchain build version
func TrustchainVersion() string {
	return version
}

// IsRelease reports whether the binary was built from a tagged release
func IsRelease() bool {
	_, err := goversion.NewSemver(version)
	return err == nil
}
