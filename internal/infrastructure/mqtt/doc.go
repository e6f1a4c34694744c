// Package mqtt provides the MQTT client for the hub's event bridge.
//
// The bridge mirrors every in-process bus event to an external broker
// under wirehome/events/{type} and feeds messages arriving under
// wirehome/inbound/# back onto the bus. The broker is optional — the hub
// is fully functional without it — so connection loss degrades to local
// operation and subscriptions are restored automatically on reconnect.
//
// A retained status message on wirehome/system/status plus a Last Will
// let external systems distinguish a gracefully stopped hub from a
// crashed one.
package mqtt
