// Package indicator drives the two status LEDs through the Linux LED class
// interface in sysfs.
//
// Each light is a directory such as /sys/class/leds/led0 exposing a trigger
// attribute (which selects who controls the LED) and a brightness attribute.
// Initialize hands both lights to software control; Set then blindly
// overwrites brightness with "1" or "0". No state is cached: the hardware
// attribute is the only record of what a light shows.
package indicator
