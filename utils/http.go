// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by everything that talks to sibling services
// (profile-service sync, health probes).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
