// Package client invokes operations on cluster members over the binary
// client protocol.
//
// A [Client] keeps at most one [wire.Conn] per member and correlates
// responses with requests through the correlation id in the message header.
//
// # Routing
//
// Requests with a partition id go to the member that owns the partition by
// rendezvous hashing over the configured addresses; other requests are spread
// by correlation id. When a retryable request loses its connection it is sent
// again, with a new correlation id, to the next member in the ranking.
//
// # Events
//
// [Client.Listen] registers a handler under the correlation id of the
// registration request. Events are dispatched on a striped executor keyed by
// partition id, so one partition's events arrive in order while partitions
// proceed in parallel.
//
// # Usage
//
//	c, err := client.New(client.Options{Addresses: []string{"10.0.0.1:5701"}})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	req := protocol.CreateForEncode(0).
//	    SetMessageType(myOp).
//	    SetPartitionID(c.PartitionID(key)).
//	    SetRetryable(true)
//	codec.EncodeByteArray(req, key)
//	resp, err := c.Invoke(ctx, req)
package client
