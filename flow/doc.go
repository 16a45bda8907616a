// Package flow holds the execution substrate shared by all nodes: the Graph that
// schedules tasks, the payload Type tokens that make connections type-checked, and
// the port interfaces through which nodes exchange values.
//
// Ports never block. A Receiver refuses a value by returning false from TryPut and a
// Sender without a value returns false from TryGet; backpressure is expressed by
// refusal. The only blocking calls are Graph.WaitForAll and Graph.Wait.
package flow
