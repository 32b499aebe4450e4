// Package mxnet implements engine.Engine with cgo calls into libmxnet.
//
// The implementation is only compiled with the mxnet build tag, since it
// links against -lmxnet and needs the MXNet C headers on the include path.
package mxnet
