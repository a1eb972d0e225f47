// Package shaders embeds the WGSL programs used by the scene. Every program
// exposes vs_main and fs_main.
package shaders

import (
	_ "embed"
)

//go:embed ground.wgsl
var GroundWGSL string

//go:embed grass.wgsl
var GrassWGSL string

//go:embed sky.wgsl
var SkyWGSL string

//go:embed fxaa.wgsl
var FXAAWGSL string

// All maps program names to their sources.
var All = map[string]string{
	"ground": GroundWGSL,
	"grass":  GrassWGSL,
	"sky":    SkyWGSL,
	"fxaa":   FXAAWGSL,
}
