// Command genkey generates a new database key file and writes the clean
// key to a recovery file for the operator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/codehubbers/hubbergram/pkg/keyring"
)

func main() {
	keyFile := flag.String("out", "db.key", "Key file to write")
	secretFile := flag.String("secret", "db_secret.txt", "Recovery file with the clean key (empty to skip)")
	flag.Parse()

	if err := run(*keyFile, *secretFile); err != nil {
		fmt.Fprintf(os.Stderr, "genkey: %v\n", err)
		os.Exit(1)
	}
}

func run(keyFile, secretFile string) error {
	ring, err := keyring.Generate()
	if err != nil {
		return err
	}
	defer ring.Destroy()

	if err := ring.Save(keyFile); err != nil {
		return err
	}
	fmt.Printf("key file written to %s\n", keyFile)

	if secretFile != "" {
		if err := ring.WriteSecret(secretFile); err != nil {
			return err
		}
		fmt.Printf("recovery key written to %s (store it somewhere safe, then delete it)\n", secretFile)
	}
	return nil
}
