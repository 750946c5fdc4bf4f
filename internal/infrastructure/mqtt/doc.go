// Package mqtt wraps the Eclipse Paho client for the Greenrack core.
//
// The wrapper adds connection lifecycle management (LWT, auto-reconnect,
// subscription restore after reconnect), panic recovery around message
// handlers, and topic builders for the per-station Greenrack scheme.
//
// All device communication in Greenrack flows over MQTT: lift, AGV and
// tray gripper commands go out on per-station command topics, device
// status and telemetry come back on per-station status topics, and the
// lighting bus bridge listens on a single fixed command topic.
//
// Usage:
//
//	client := mqtt.New()
//	client.SetLogger(log)
//	if err := client.Connect(cfg.MQTT); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.AllLiftStatuses(), 1, onLiftStatus)
package mqtt
