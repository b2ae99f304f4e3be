/*
Package engine defines the interface to the container engines guests and
their sandbox companions run on.

The [Runtime] interface covers exactly what collecting features of containers
needs: listing and inspecting containers, resolving their root file systems,
and creating and removing companion containers. Implementations live in the
sub-packages, such as [github.com/siemens/nscrawler/engine/moby].
*/
package engine
