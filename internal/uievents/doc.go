// Package uievents decides which host UI events reach the recording.
//
// Only events that happen after the first checkpoint are recorded. Mouse
// events are limited to button presses and moves, keyboard events to key
// presses, downs and ups. Navigations are recorded once the initial
// about:blank page loaded; about: pages and same-document navigations that
// do not change the URL are dropped.
package uievents
