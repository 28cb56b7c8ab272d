// Package testing provides test utilities shared by the unit tests.
//
// The centrepiece is [FakeAppliance], an in-memory implementation of the
// appliance REST API served by httptest. It understands collections,
// resources, filters and the actions the workflows post, and lets a test
// script how records evolve between reloads:
//
//	fake := testing.NewFakeAppliance(t)
//	fake.Seed("vms", map[string]any{"name": "vm-1"})
//	fake.OnReload("tasks", func(rec map[string]any, reloads int) {
//	    if reloads >= 2 {
//	        rec["state"] = "Finished"
//	    }
//	})
//	client, err := rest.New(fake.URL(), rest.WithBasicAuth(testing.FakeUser, testing.FakePassword))
package testing
