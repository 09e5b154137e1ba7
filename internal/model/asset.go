package model

import "path"

// AssetKind is the coarse category of a downloaded resource.
// It decides the destination subdirectory and the extension policy.
type AssetKind int

const (
	// AssetStylesheet is a CSS file referenced by <link rel="stylesheet">.
	AssetStylesheet AssetKind = iota
	// AssetScript is a JavaScript file referenced by <script src>.
	AssetScript
	// AssetImage is an image referenced by <img src> or srcset.
	AssetImage
	// AssetFont is any resource referenced from inside a stylesheet.
	AssetFont
	// AssetOther is anything else.
	AssetOther
)

// AssetRoot is the directory under the output directory that holds assets.
const AssetRoot = "assets"

// AllAssetKinds lists every kind in declaration order.
var AllAssetKinds = []AssetKind{AssetStylesheet, AssetScript, AssetImage, AssetFont, AssetOther}

// String returns the lowercase kind name.
func (k AssetKind) String() string {
	switch k {
	case AssetStylesheet:
		return "stylesheet"
	case AssetScript:
		return "script"
	case AssetImage:
		return "image"
	case AssetFont:
		return "font"
	default:
		return "other"
	}
}

// Dir returns the output-relative directory for the kind, using forward slashes.
func (k AssetKind) Dir() string {
	switch k {
	case AssetStylesheet:
		return path.Join(AssetRoot, "css")
	case AssetScript:
		return path.Join(AssetRoot, "js")
	case AssetImage:
		return path.Join(AssetRoot, "images")
	case AssetFont:
		return path.Join(AssetRoot, "fonts")
	default:
		return path.Join(AssetRoot, "other")
	}
}

// DefaultExt returns the extension used when neither the URL nor the
// response reveals one.
func (k AssetKind) DefaultExt() string {
	switch k {
	case AssetStylesheet:
		return ".css"
	case AssetScript:
		return ".js"
	case AssetImage:
		return ".jpg"
	case AssetFont:
		return ".woff"
	default:
		return ".bin"
	}
}
