// Package dom provides a small typed view over an HTML document tree.
//
// A page is parsed once into a Document, its resource-bearing elements are
// visited and mutated by kind (anchor, link, script, image), and the tree is
// rendered back to markup once it is final.
//
// Design decision: We wrap golang.org/x/net/html instead of exposing raw
// nodes because:
//  1. Callers only ever touch a closed set of element kinds
//  2. Attribute reads and writes stay in one place
//  3. Rendering and marker injection share the same tree
package dom
