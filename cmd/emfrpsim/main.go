// Command emfrpsim runs an emfrpvm program frame file against a desktop
// build of the engine: it loads the frame, drives a handful of update
// cycles, and prints everything Print/PrintObj and the loader's result
// codes write to the host transport -- the same role a board's USB
// console plays in the embedded target this engine was built for.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"emfrpvm/device"
	"emfrpvm/vm"
)

var (
	debugMode = flag.Bool("debug", false, "enable debug-mode invariant checks (stack balance at Halt)")
	cycles    = flag.Int("cycles", 1, "number of update cycles to run after loading")
	interval  = flag.Duration("interval", 100*time.Millisecond, "delay between update cycles")
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Println("Usage: emfrpsim [flags] <frame file>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Println("could not read frame file:", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	m := vm.Init(0, 0, out)
	m.Debug = *debugMode

	var outputs []vm.Value
	if _, err := m.AddOutputNode(vm.Zero, device.Sink(&outputs)); err != nil {
		fmt.Println("could not register output node:", err)
		os.Exit(1)
	}

	res := m.NewBytecode(buf)
	fmt.Println("load result:", res)

	for i := 0; i < *cycles; i++ {
		if res := m.Update(); res != vm.ResultOK {
			fmt.Println("update result:", res)
			break
		}
		if i+1 < *cycles {
			time.Sleep(*interval)
		}
	}

	for i, v := range outputs {
		fmt.Printf("output[%d] = %d\n", i, v.AsInt32())
	}
}
