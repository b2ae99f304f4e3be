/*
Package guests keeps track of the guest containers to be crawled, watching
one or more container engines in the background.

A [Source] is created with the API endpoints of the container engines to
watch, such as Docker, containerd, and CRI-enabled engines; when no endpoint
has been specified, it looks for Docker engines by scanning the process table.

	src, err := guests.New(ctx, guests.WithDockerAPI("unix:///run/docker.sock"))
	if err != nil {
	    return err
	}
	defer src.Close()
	for _, guest := range src.Guests() {
	    // ...
	}

Companion containers created for plugin collection are never reported as
guests.
*/
package guests
