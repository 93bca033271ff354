package handlers

import "vulnreport/internal/config"

var cfg *config.Config

// Setup hands the loaded configuration to the handler package.
func Setup(c *config.Config) {
	cfg = c
}
