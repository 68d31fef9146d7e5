// enc cifra o descifra valores con la clave maestra de secretbox.
// Sirve para ops: rotar tokens en mano, inspeccionar un link roto, o
// generar fixtures cifradas sin levantar el servicio.
//
// Uso:
//
//	SECRETBOX_MASTER_KEY=... go run ./cmd/enc "texto plano"
//	SECRETBOX_MASTER_KEY=... go run ./cmd/enc -d "base64(nonce)|base64(ct)"
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
)

func main() {
	_ = godotenv.Load()

	decrypt := flag.Bool("d", false, "descifrar en vez de cifrar")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: enc [-d] <value>")
		os.Exit(2)
	}

	cipher, err := secretbox.NewFromEnv()
	if err != nil {
		log.Fatalf("secretbox: %v", err)
	}

	var out string
	if *decrypt {
		out, err = cipher.Decrypt(flag.Arg(0))
	} else {
		out, err = cipher.Encrypt(flag.Arg(0))
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)
}
