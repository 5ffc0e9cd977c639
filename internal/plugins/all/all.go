// Package all links every bundled plugin into the binary. Import it for its
// side effects only.
package all

import (
	_ "github.com/edgard/lunabot/internal/plugins/about"       //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/ban"         //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/calc"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/chatgpt"     //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/core"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/echo"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/games"       //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/getdata"     //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/groups"      //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/id"          //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/logs"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/mute"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/ping"        //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/purge"       //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/react"       //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/sample"      //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/stickerspam" //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/users"       //revive:disable:blank-imports
	_ "github.com/edgard/lunabot/internal/plugins/warn"        //revive:disable:blank-imports
)
