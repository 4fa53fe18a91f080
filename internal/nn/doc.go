// Package nn provides loss functions and layer builders for autodiff graphs.
//
// Losses implement autodiff.Loss: they return a per-element loss tensor and
// the gradient of that loss with respect to the graph output. The graph
// divides the gradient by the number of loss elements, so the propagated
// gradients are those of the mean loss.
//
// Layers such as Linear allocate their parameters in a graph and append the
// operations they need through autodiff.Graph.Call.
package nn
