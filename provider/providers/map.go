package providers

import (
	"roob.re/mirrorrank/provider/providers/archlinux"
	"roob.re/mirrorrank/provider/providers/cachyos"
	"roob.re/mirrorrank/provider/providers/command"
	"roob.re/mirrorrank/provider/providers/stdin"
	"roob.re/mirrorrank/provider/types"
)

// Map contains a list of target builders given their friendly name.
var Map = map[string]types.Builder{
	"archlinux": {
		Description:   "Rank Arch Linux mirrors from the mirror status API",
		DefaultConfig: archlinux.DefaultConfig,
		BindFlags:     archlinux.BindFlags,
		New:           archlinux.New,
	},
	"cachyos": {
		Description:   "Rank CachyOS repository mirrors",
		DefaultConfig: cachyos.DefaultConfig,
		BindFlags:     cachyos.BindFlags,
		New:           cachyos.New,
	},
	"stdin": {
		Description:   "Rank mirrors read from standard input, one per line",
		DefaultConfig: stdin.DefaultConfig,
		BindFlags:     stdin.BindFlags,
		New:           stdin.New,
	},
	"command": {
		Description:   "Rank mirrors printed by a shell command, one per line",
		DefaultConfig: command.DefaultConfig,
		BindFlags:     command.BindFlags,
		New:           command.New,
	},
}
