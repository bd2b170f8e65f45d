package paths

import (
	"flag"
)

// SetupFilePathFlag registers a string flag for the path to a game data file,
// such as H3sprite.lod. The default is whatever Find locates in $HOMM3_DATA
// or the other Dirs, or an empty string if the file is not installed there.
func SetupFilePathFlag(fileName, flagName string, flagPtr *string) {
	flag.StringVar(flagPtr, flagName, Find(fileName), "Path to "+fileName+" (searched for in $"+EnvDataDir+" and ./Data if unset)")
}
