// Package naming provides consistent names for the objects test runs create
// on an appliance.
//
// Created objects carry a fixed, recognizable part and a five character
// random suffix, e.g. "test admin rule x7k2p" or "cat_4mq9z". The suffix
// keeps concurrent runs from colliding; the fixed part makes leftovers easy
// to find and clean up.
package naming
