// Package portal serves the captive configuration portal.
//
// RenderPage, Validate and Apply are pure functions over a parameter
// registry. Handler binds them to a device: it answers the configuration
// page, stores accepted submissions, redirects captive-portal probes for
// foreign hosts and challenges for basic auth once the device is online.
//
// Server is the HTTP transport. Requests that read or write the registry
// are queued and executed by HandleClient, which the provisioning
// controller calls from its tick, so the registry is never touched
// concurrently. The firmware Updater and the StatusHub websocket feed do
// not touch the registry and are served directly.
package portal
