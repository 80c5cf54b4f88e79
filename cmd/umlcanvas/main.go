package main

import (
	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlcli"
)

func main() {
	xmain.Main(umlcli.Run)
}
