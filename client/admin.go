package client

import "context"

// AdminClient maps cluster and user administration onto the request
// primitive.
type AdminClient struct {
	c *Client
}

// ListNodes returns every cluster member the contacted node knows about.
func (a *AdminClient) ListNodes(ctx context.Context) ([]NodeInfo, error) {
	resp, err := a.c.do(ctx, dataRequest{Op: opAdminListNodes})
	if err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// AddNode asks the cluster to admit a new member.
func (a *AdminClient) AddNode(ctx context.Context, host string) error {
	_, err := a.c.do(ctx, dataRequest{Op: opAdminAddNode, Host: host})
	return err
}

// RemoveNode asks the cluster to remove a member.
func (a *AdminClient) RemoveNode(ctx context.Context, nodeID uint64) error {
	_, err := a.c.do(ctx, dataRequest{Op: opAdminRemoveNode, Node: nodeID})
	return err
}

// Status returns the cluster status summary.
func (a *AdminClient) Status(ctx context.Context) (*ClusterState, error) {
	resp, err := a.c.do(ctx, dataRequest{Op: opAdminStatus})
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return &ClusterState{}, nil
	}
	return resp.Status, nil
}

// CreateUser creates a database user.
func (a *AdminClient) CreateUser(ctx context.Context, username, password string) error {
	_, err := a.c.do(ctx, dataRequest{Op: opAdminCreateUser, User: username, Pass: password})
	return err
}

// DropUser removes a database user.
func (a *AdminClient) DropUser(ctx context.Context, username string) error {
	_, err := a.c.do(ctx, dataRequest{Op: opAdminDropUser, User: username})
	return err
}

// GrantRole grants a role to a user.
func (a *AdminClient) GrantRole(ctx context.Context, username, role string) error {
	_, err := a.c.do(ctx, dataRequest{Op: opAdminGrantRole, User: username, Role: role})
	return err
}
