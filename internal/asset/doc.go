// Package asset downloads the non-HTML resources a captured page depends on.
//
// A Pipeline keeps the asset map: every remote URL it has saved, keyed to the
// relative path of the local copy. A URL is fetched over the network at most
// once per run, even when several pages ask for it at the same time. Failed
// fetches are remembered too, so a broken reference costs one request.
//
// Stylesheets are special: their url(...) references are localized before
// the file is written, so fonts and background images keep working offline.
package asset
