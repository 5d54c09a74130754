package asar_test

import (
	"context"
	"fmt"
	"log"

	"github.com/meigma/asar"
)

func ExamplePack() {
	fingerprint, err := asar.Pack(context.Background(), "./app", "app.asar",
		asar.PackWithUnpacked("native/addon.node"),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(fingerprint)
}

func ExampleOpen() {
	a, err := asar.Open("app.asar")
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	for path, entry := range a.Entries() {
		fmt.Println(path, entry.Size)
	}
}

func ExampleArchive_Extract() {
	a, err := asar.Open("app.asar")
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	if err := a.Extract("./app-out", asar.ExtractWithPaths("dist")); err != nil {
		log.Fatal(err)
	}
}
