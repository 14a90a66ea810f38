package utils

import "os"

var QuitChan = make(chan os.Signal, 1)
