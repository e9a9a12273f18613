// Package winapi holds the handful of user32/dxva2 bindings autobright needs
// on Windows: monitor enumeration, layered popup windows and DDC/CI
// brightness. It builds to an empty package elsewhere.
package winapi
