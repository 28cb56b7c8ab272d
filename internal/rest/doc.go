// Package rest is a small client for the appliance's REST API.
//
// The API is organised as collections (/api/<name>) of resources
// (/api/<name>/<id>). Both accept actions posted as
// {"action": "<name>", ...}; a collection action carries a "resources" list
// and answers with "results", a resource action carries a single "resource"
// body. [Collection] and [Resource] model exactly that and nothing more:
// resource data stays a map because the tests only ever read a handful of
// attributes from it.
//
// Transport, authentication and JSON decoding are delegated to the IBM
// go-sdk-core BaseService. Idempotent requests are retried on transport
// errors and 5xx answers.
package rest
