//go:build windows

package main

func dumpOnSignal(string) func() { return func() {} }
