package utils

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"scw/config"

	"github.com/go-resty/resty/v2"
)

// JupyterHub admin API client. The course's notebook servers run on an
// external hub; the backend only needs to check that the hub is reachable
// and to make sure enrolled students have a hub account.

func hubClient() *resty.Client {
	client := resty.New().
		SetBaseURL(config.AppConfig.JupyterHubURL).
		SetTimeout(10 * time.Second)
	if config.AppConfig.JupyterHubToken != "" {
		client.SetHeader("Authorization", "token "+config.AppConfig.JupyterHubToken)
	}
	return client
}

// PingHub checks that the configured JupyterHub answers its API root.
// Returns nil when no hub is configured.
func PingHub() error {
	if config.AppConfig.JupyterHubURL == "" {
		return nil
	}

	resp, err := hubClient().R().Get("/hub/api")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("jupyterhub returned status %d", resp.StatusCode())
	}
	return nil
}

// SyncHubUser creates the student's hub account if it does not exist yet.
// Best effort: hub unavailability must never block enrollment, so callers
// run this off the request path and failures only reach the logs.
func SyncHubUser(username string) {
	if config.AppConfig.JupyterHubURL == "" {
		return
	}

	resp, err := hubClient().R().Post("/hub/api/users/" + username)
	if err != nil {
		log.Printf("[JUPYTERHUB] Error syncing user %s: %v", username, err)
		return
	}
	// 201 created, 409 already exists
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusConflict {
		log.Printf("[JUPYTERHUB] Unexpected status %d syncing user %s: %s", resp.StatusCode(), username, resp.String())
		return
	}
	log.Printf("[JUPYTERHUB] Synced hub user %s", username)
}
