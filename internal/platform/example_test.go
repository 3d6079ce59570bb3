package platform_test

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/platform"
)

func ExampleDetector_Detect() {
	info, err := platform.NewDetector().Detect(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Host target: %s\n", info.Target())
}

func ExampleParseTargets() {
	targets, err := platform.ParseTargets("linux,osx/arm64")
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range targets {
		fmt.Println(t)
	}
	// Output:
	// linux/amd64
	// osx/arm64
}

func ExampleTarget_Defines() {
	defines := platform.Target{Platform: platform.Win, Arch: platform.AMD64}.Defines()

	names := make([]string, 0, len(defines))
	for name := range defines {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println(names)
	// Output: [XP_ARCH_AMD64 XP_WIN]
}
