// Package assets builds, loads and serves the client build.
//
// [Build] fingerprints every file of the asset source directory into
// <out>/assets/<name>-<hash><ext>, copies the public directory next to it and
// writes a [Manifest] mapping logical names to the fingerprinted paths plus a
// version derived from their hashes:
//
//	{
//	  "version": "3f2a9c1d",
//	  "entries": {
//	    "app.css": "assets/app-5d41402a.css",
//	    "entry.client.js": "assets/entry.client-7d793037.js"
//	  }
//	}
//
// At runtime a [Store] holds the active manifest. In production it is loaded
// once; in development a [Watcher] rebuilds on change and swaps it.
//
// [Responder] serves the build output. Files below /assets/ are fingerprinted
// and get a one year immutable Cache-Control; every other public file gets one
// hour. A request that matches no file is passed to the next handler.
package assets
