// Command blockboot-flash uploads a firmware image to a device running
// the blockboot bootloader.
package main

import (
	"flag"
	"fmt"
	"os"

	"blockboot/host/flasher"
	"blockboot/host/image"
	"blockboot/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
	addr    = flag.Uint("addr", 0x08000000, "Flash address for raw binary images")
	verify  = flag.Bool("verify", true, "Read the image back after flashing")
	verbose = flag.Bool("verbose", false, "Print per-block progress")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: blockboot-flash [options] firmware.{bin,hex}")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	img, err := image.Load(path, uint32(*addr))
	if err != nil {
		fatal("loading %s: %v", path, err)
	}
	fmt.Printf("Image: %d bytes at %08x\n", len(img.Data), img.Start)

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer port.Close()

	opts := []flasher.Option{}
	if *verbose {
		opts = append(opts, flasher.WithProgress(func(p flasher.Progress) {
			fmt.Printf("  %s block %d/%d\n", p.Phase, p.Block+1, p.TotalBlocks)
		}))
	}
	f := flasher.New(port, opts...)

	fmt.Printf("Connecting to %s...\n", *device)
	info, err := f.Connect()
	if err != nil {
		fatal("connect: %v", err)
	}
	fmt.Printf("Connected: %s, protocol v%d, application at %08x, %d-byte blocks\n",
		info.MCU, info.ProtocolVersion, info.ApplicationStart, info.BlockSize)

	fmt.Println("Writing image...")
	if err := f.WriteImage(img); err != nil {
		fatal("write: %v", err)
	}

	pages, err := f.Commit()
	if err != nil {
		fatal("commit: %v", err)
	}
	fmt.Printf("Wrote %d flash pages\n", pages)

	if *verify {
		fmt.Println("Verifying...")
		if err := f.Verify(img); err != nil {
			fatal("verify: %v", err)
		}
		fmt.Println("Verify OK")
	}

	// COMPLETE resets the device into the new firmware.
	if err := f.Complete(); err != nil {
		fatal("complete: %v", err)
	}
	fmt.Println("Done")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
