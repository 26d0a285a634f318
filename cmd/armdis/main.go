// Command armdis is a disassembly and micro-benchmark tool for the ARM
// core: it decodes single instruction words to text, runs a flat guest
// image through the reference interpreter for a fixed cycle budget, and can
// watch a guest image file and flush the affected cache range on write.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kestrelcore/armjit/arm"
	"github.com/kestrelcore/armjit/arm/disasm"
	"github.com/kestrelcore/armjit/arm/interp"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "armdis",
		Short: "ARM instruction disassembler and interpreter",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(decodeCmd(), runCmd(), watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a single 32-bit ARM instruction word",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			word, err := parseWord(args[0])
			if err != nil {
				fmt.Printf("decode: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(disasm.Decode(word))
		},
	}
}

func parseWord(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a hex instruction word: %w", s, err)
	}
	return uint32(v), nil
}

// flatMemory is a byte slice mapped starting at address zero, code fetch
// and data access both served straight out of it. It exists only to give
// this CLI's run/watch subcommands a Memory to hand the CPU; nothing about
// it is part of the core's own contract.
type flatMemory struct {
	bytes []byte
}

func (m *flatMemory) FastReadCodeU32(address uint32) uint32 { return m.readU32(address) }

func (m *flatMemory) readU32(address uint32) uint32 {
	if int(address)+4 > len(m.bytes) {
		return 0
	}
	return binary.LittleEndian.Uint32(m.bytes[address:])
}

func (m *flatMemory) ReadU8(address uint32, _ arm.BusKind) uint8 {
	if int(address) >= len(m.bytes) {
		return 0
	}
	return m.bytes[address]
}

func (m *flatMemory) ReadU16(address uint32, _ arm.BusKind) uint16 {
	if int(address)+2 > len(m.bytes) {
		return 0
	}
	return binary.LittleEndian.Uint16(m.bytes[address:])
}

func (m *flatMemory) ReadU32(address uint32, _ arm.BusKind) uint32 { return m.readU32(address) }

func (m *flatMemory) WriteU8(address uint32, value uint8, _ arm.BusKind) {
	if int(address) < len(m.bytes) {
		m.bytes[address] = value
	}
}

func (m *flatMemory) WriteU16(address uint32, value uint16, _ arm.BusKind) {
	if int(address)+2 <= len(m.bytes) {
		binary.LittleEndian.PutUint16(m.bytes[address:], value)
	}
}

func (m *flatMemory) WriteU32(address uint32, value uint32, _ arm.BusKind) {
	if int(address)+4 <= len(m.bytes) {
		binary.LittleEndian.PutUint32(m.bytes[address:], value)
	}
}

func runCmd() *cobra.Command {
	var cycles int
	var entry uint32

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Interpret a flat guest image for a fixed cycle budget",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			image, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("run: %v\n", err)
				os.Exit(1)
			}
			mem := &flatMemory{bytes: image}
			backend := interp.New()
			cpu := arm.New(arm.Config{Memory: mem, Backend: backend})
			backend.Bind(cpu)
			cpu.SetGPR(15, entry)

			executed := cpu.Run(cycles)

			fmt.Printf("executed %d/%d cycles\n", executed, cycles)
			if cpu.IsHalted() {
				fmt.Println("halted: translation refused, guest core stopped")
			}
			for r := 0; r < 16; r++ {
				fmt.Printf("  r%-2d = %#010x\n", r, cpu.GetGPR(uint8(r)))
			}
			fmt.Printf("  cpsr = %#010x\n", cpu.GetCPSR())
			stats := cpu.CacheStats()
			fmt.Printf("cache: %d hits, %d misses, %d evictions, %d live\n",
				stats.Hits, stats.Misses, stats.Evictions, stats.Live)
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 100, "cycle budget to run")
	cmd.Flags().Uint32Var(&entry, "entry", 0, "guest entry address")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <image>",
		Short: "Watch a guest image file and flush the affected cache range on write",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				fmt.Printf("watch: %v\n", err)
				os.Exit(1)
			}

			mem := &flatMemory{bytes: make([]byte, info.Size())}
			backend := interp.New()
			cpu := arm.New(arm.Config{Memory: mem, Backend: backend})
			backend.Bind(cpu)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				fmt.Printf("watch: %v\n", err)
				os.Exit(1)
			}
			defer watcher.Close()

			if err := watcher.Add(path); err != nil {
				fmt.Printf("watch: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("watching %s for changes; ClearICacheRange fires on every write\n", path)
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if data, err := os.ReadFile(path); err == nil {
						copy(mem.bytes, data)
						cpu.ClearICacheRange(0, uint32(len(mem.bytes)))
						fmt.Printf("%s changed: flushed cache range [0, %#x]\n", event.Name, len(mem.bytes))
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					fmt.Printf("watch error: %v\n", err)
				}
			}
		},
	}
}
