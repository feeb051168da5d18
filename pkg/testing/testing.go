package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// moves tests to the project root so the logs dir and .env lookups
	// resolve the same way they do for cmd/server
	//
	//   import (
	//     _ "liyu1981.xyz/plant-station-service/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
}
