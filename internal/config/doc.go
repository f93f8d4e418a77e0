// Package config loads Delphi configuration.
//
// Configuration lives in delphi.json (comments allowed) or delphi.yaml at
// the project root. Every field has a default, so an empty file or no file
// at all is valid.
//
// # Configuration File Structure
//
//	{
//	  // "text" or "json"; "auto" picks text on a terminal
//	  "log": {"level": "info", "format": "auto"},
//	  "metrics": {"namespace": "delphi"},
//	  "debug": {
//	    "addr": "127.0.0.1:7071",
//	    "dumpDir": "dumps",
//	    "s3": {"bucket": "ui-dumps", "prefix": "lobby/", "region": "eu-west-1"},
//	    "allowedOrigins": ["http://localhost:3000"]
//	  },
//	  "bridge": {"path": "/bridge", "callTimeout": "5s"},
//	  "pages": {"dir": "pages", "debounce": "100ms"},
//	  "journal": {"path": "delphi.journal", "compress": true}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
package config
