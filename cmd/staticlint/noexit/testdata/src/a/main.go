package main

import (
	"log"
	"os"
	sys "os"
)

func main() {
	if len(os.Args) > 3 {
		os.Exit(2) // want "avoid using os.Exit in main.main"
	}
	if len(os.Args) > 2 {
		sys.Exit(1) // want "avoid using os.Exit in main.main"
	}
	if len(os.Args) > 1 {
		log.Fatalf("bad args: %v", os.Args) // want "avoid using log.Fatalf in main.main"
	}
	fail()
}

func fail() {
	log.Println("exiting")
	os.Exit(1)
}
