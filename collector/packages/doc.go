/*
Package packages collects the installed software packages of a target
("package") from the dpkg status database or the rpm database.

When collecting from a live container, the package databases are first read
from inside the container's namespaces; if this fails, collection gets retried
exactly once from the outside against the container's root file system.
*/
package packages
