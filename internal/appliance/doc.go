// Package appliance implements the workflows used to verify a running
// appliance through its REST API: automation and provision requests,
// arbitration, notifications, SmartState scans, host drift analysis and
// service catalog orders.
//
// Every workflow prepares its preconditions, triggers the product operation
// and then polls the API until the remote state settles. Nothing is computed
// locally; the appliance owns all state.
package appliance
