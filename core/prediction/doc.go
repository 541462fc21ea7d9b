// Package prediction estimates how much power (in MW) a data centre should
// offload from its utilisation metrics and the availability of receiving
// devices.
package prediction
