// Package daemonctl launches and stops the kiosk daemon as a background
// process for `kiosk start` and `kiosk stop`.
package daemonctl
