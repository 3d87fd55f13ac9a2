//go:build memtoolkit

package main

import "github.com/turtacn/chemindex/internal/testutil/chemfake"

func init() {
	chemfake.Register()
}

//Personal.AI order the ending
