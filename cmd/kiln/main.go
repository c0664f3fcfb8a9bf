// Command kiln reports build/version info for the Kiln tensor runtime
// core.
package main

import (
	"fmt"
	"os"

	"github.com/kiln-ml/kiln/device"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("kiln %s\n", version)
		return
	}

	fmt.Println("Kiln - a strided tensor runtime core for transformer inference")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Printf("Registered device kinds: %s\n", registeredKinds())
	fmt.Println("Kernels: embedding, rms_norm, linear, rope, self_attention, swiglu, argmax")
}

func registeredKinds() string {
	if _, err := device.Get(device.CPU); err == nil {
		return "cpu"
	}
	return "none"
}
