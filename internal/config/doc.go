// Package config loads the appliance endpoint, credentials and provider
// test data that the workflows and the e2e suite run against.
//
// The YAML file mirrors the layout testers already keep for the appliance:
// an appliance block, a credentials map and a management_systems map keyed
// by provider. Environment variables with the MIQ_ prefix override the
// appliance block, and timeouts come from MIQ_TIMEOUT_* variables (see
// [LoadTimeouts]).
package config
