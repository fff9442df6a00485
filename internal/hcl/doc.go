// Package hcl loads project configuration written in HCL ("*.hcl" files
// under the project root) into the format-agnostic config model.
//
// A project file may contain a single optional project block and any number
// of module blocks:
//
//	project "shop" {
//	  variables = { region = "eu-west-1" }
//	}
//
//	module "web" {
//	  type = "exec"
//	  build {
//	    command      = ["sh", "-c", "make"]
//	    dependencies = ["base"]
//	    dependency "lib" {
//	      copy {
//	        source = "dist/lib.js"
//	        target = "vendor/"
//	      }
//	    }
//	  }
//	  service "web" {
//	    command = ["./serve"]
//	  }
//	}
//
// Module attribute expressions may reference project variables as var.<name>.
package hcl
