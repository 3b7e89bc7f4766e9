// Command pdfmerge submits PDF files to the merge service, or merges them
// locally, in a chosen order.
package main

import (
	_ "github.com/joho/godotenv/autoload"

	"go-pdfmerger/internal/cli"
)

func main() {
	cli.Execute()
}
