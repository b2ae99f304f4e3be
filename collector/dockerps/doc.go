/*
Package dockerps collects the containers known to the container engine of a
host ("dockerps"), as well as the build history of the image of a container
("dockerhistory").

Listing containers needs a host crawl with a container engine at hand, while
the image history needs an out-of-container crawl with an engine that keeps
image histories, such as Docker.
*/
package dockerps
