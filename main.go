/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/taskflow/cmd"
	"github.com/josephgoksu/taskflow/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
