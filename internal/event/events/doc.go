// Package events defines the topics and payloads published on the keymarks
// event bus.
package events
